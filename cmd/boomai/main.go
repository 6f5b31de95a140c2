// Command boomai answers chat requests by routing each one to the cheapest
// strategy that can solve it: a local tool, a single model call, a
// consensus race or a decomposed plan.
package main

func main() {
	Execute()
}
