// Command ls-sensitivity is a terminal front end for a radio telescope
// sensitivity calculator backend.
package main

func main() {
	Execute()
}
