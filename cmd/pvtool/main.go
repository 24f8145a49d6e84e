// Command pvtool works with pvData schemas, values and record stores.
package main

func main() {
	execute()
}
