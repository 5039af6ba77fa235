// Package devfs publishes synthetic character devices through the
// kernel's device-in-userspace facility and delivers their request
// stream to a bound callback vtable. It implements the api.Framework
// contract the fan-out engine is written against; all request handling
// happens on the caller's thread via Receive/Process, so the package
// itself never spawns goroutines.
package devfs
