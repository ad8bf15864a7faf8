// Package device holds the capabilities the loader consumes from the outside
// world: boot storage, physical memory and the digest and signature
// primitives.
//
// RAM and Flash are in-memory implementations used by tests and by the
// simulator. SHA3 is the production digester.
package device
