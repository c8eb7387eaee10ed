// Package scheduler decides which scheduled alarm fires next and arranges a
// single wake-up for it.
//
// Every store mutation and every recomputation runs under one lock, so the
// armed wake-up always matches the stored scheduled set. State is rebuilt
// from the store on every pass; nothing kept in memory is authoritative.
package scheduler
