// Package book implements the in-memory price-level book for a single
// market. Bid and ask sides are red-black trees keyed by price; each
// level is a FIFO queue of resting orders, so insertion order encodes
// price-time priority. The book is single-writer and deterministic:
// all mutation happens through the market engine that owns it.
package book
