// Command offheapctl drives an off-heap allocator with a synthetic workload
// and prints or exports the resulting directory report.
package main

func main() {
	execute()
}
