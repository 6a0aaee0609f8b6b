//go:build !wasm
// +build !wasm

// Package gae provides a Google Cloud Datastore implementation of the authcore
// store interfaces. It supports multi-tenancy through Datastore namespaces.
//
// # Datastore Kinds
//
//   - Identity: accounts keyed by identity id
//   - EmailIndex: one entity per email, keyed by email, pointing at the identity id
//   - Session: sessions keyed by their token
//   - OneTime: OTP and magic-link entries keyed by kind + ":" + email
//
// Keying one-time entries by kind and email makes issuance a single Put that
// overwrites the previous entry, and makes redemption a transactional Get and
// Delete of one entity.
//
// # Usage
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	store := gae.NewStore(client, "") // default namespace
//	auth := authcore.NewAuthenticator(store, store, store)
package gae
