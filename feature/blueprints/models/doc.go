// Package models defines the persisted entities of the blueprint library.
//
// Blueprint and IndustryJob rows are owned by their Owner and maintained by
// the sync tasks: each pass treats the remote snapshot as the complete truth
// for one owner, upserting reported rows and deleting unreported ones.
// BlueprintLocation and EveEntity are shared, owner-agnostic name caches.
//
// The models intentionally carry no created/updated timestamps so that a pass
// against an unchanged remote snapshot reproduces identical rows.
package models
