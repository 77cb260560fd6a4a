// Package letter implements the letter lifecycle: creation with slug assignment,
// ownership-checked reads and mutations, and per-author pagination.
//
// Every letter has exactly one owner: an authenticated author, or a guest
// identity whose secret token is the only proof of ownership. Access decisions
// live in access.go and always run before a mutation reaches the Store.
package letter
