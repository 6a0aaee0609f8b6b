//go:build !wasm
// +build !wasm

// Package gorm provides a GORM-backed implementation of the authcore store
// interfaces. It is exercised against SQLite (github.com/glebarez/sqlite) and
// PostgreSQL (gorm.io/driver/postgres).
//
// # Database Schema
//
// AutoMigrate creates:
//   - identities: accounts, credentials, pending reset tokens and profile data
//   - sessions: opaque session tokens
//   - one_time_credentials: OTP codes and magic-link tokens
//
// Multi-step mutations run in a transaction. Identity emails, session tokens
// and one-time (kind, email) pairs are unique indexes; one-time credentials
// are replaced with an upsert on that pair.
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{})
//	gormstore.AutoMigrate(db)
//	store := gormstore.NewStore(db)
//	auth := authcore.NewAuthenticator(store, store, store)
package gorm
