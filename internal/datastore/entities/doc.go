// Package entities defines the GORM models persisted by the survey store.
//
// # Entities
//
//   - Network: one row per physical emitter (Wi-Fi AP, Bluetooth, BLE, cell),
//     holding best-signal and last-seen observations
//   - Sighting: append-only record of every accepted observation
//   - Session: one scan run, stamped with totals when it ends
//   - RoutePoint: append-only position fixes recorded during a session
//   - IRK: identity resolving keys used to de-anonymize BLE private addresses
//
// String primary keys are UUIDs assigned in BeforeCreate hooks.
package entities
