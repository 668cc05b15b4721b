// refactord watches a project for source edits and drives the
// analyze-plan-execute refactoring loop over them.
package main

func main() {
	Execute()
}
