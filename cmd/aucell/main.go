// Command aucell scores gene set activity in single-cell expression data.
package main

func main() {
	Execute() // initialize cobra commands
}
