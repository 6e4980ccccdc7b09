// Package repository provides the GORM-backed repositories for networks,
// sightings, sessions, route points and identity keys.
//
// Every repository is constructed from a *gorm.DB. Passing a transaction
// handle yields repositories whose calls join that transaction.
package repository
