// update-crate-tests generates TEST_MAPPING files from Bazel queryview
// reverse-dependency queries so CI runs exactly the tests affected by a
// crate change.
package main

import "github.com/aosp-rust/cratetests/cmd/update-crate-tests/internal/cli"

func main() {
	cli.Execute()
}
