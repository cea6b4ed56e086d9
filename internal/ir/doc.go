// Package ir defines the entity model and the canonical wire encoding
// shared by signing and publication.
//
// This package imports nothing internal. Every other internal package
// imports ir.
//
// Key constraints:
//   - NO float or null values anywhere: content is String, Int, Bool,
//     Array or Object
//   - MarshalCanonical is the only encoding used as signing input and as
//     the comparison key against the remote collection
//   - All JSON keys use snake_case
package ir
