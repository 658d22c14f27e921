// awslimits - AWS usage and service limit collector
// Collect. Queue. Emit.
package main

func main() {
	Execute()
}
