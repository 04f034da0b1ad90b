// Package notes stores and serves per-user notes.
//
// Every store operation takes the owning user id and filters by it; a note owned by another
// user is indistinguishable from a missing one.
package notes
