// Command gladius audits a real-estate deal from the terminal.
package main

func main() {
	Execute()
}
