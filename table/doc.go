// Package table implements the shared, named array table that kernel requests
// read operands from and publish results into.
//
// Arrays are allocated invisible, filled by their producer and then published.
// Publication of several arrays happens in one critical section, so readers
// observe either all of them or none. Every array holds its bytes against the
// process memory controller until it is deleted.
//
// Names of the form "id_<n>" are assigned by the table; arrays can be renamed
// to user names with Register, which also protects them from Clear.
package table
