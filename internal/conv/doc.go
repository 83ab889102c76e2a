// Package conv provides checked integer conversions for values read from
// untrusted sources such as snapshot headers and wire requests.
package conv
