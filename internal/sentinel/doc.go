// Package sentinel provides a string-backed error type that can be declared
// as a constant.
//
// Errors created with errors.New live in vars that any consumer could
// reassign. Declaring sentinels as const Error values rules that out while
// staying fully compatible with errors.Is across wrapped chains.
package sentinel
