// Package target defines the Target Descriptor: the immutable record that
// identifies one build environment (target triple, execution host, toolchain
// channel and whether the test suite is suppressed).
package target
