// Package main provides the entry point for the jurisdata CLI.
//
// jurisdata asks a local scraping service which elements of a web page can
// be extracted and manages the per-URL link configurations that describe
// what to extract.
//
// Usage:
//
//	jurisdata discover <url>
//	jurisdata config list
//	jurisdata history [url]
//
// See --help for all available options.
package main

func main() {
	Execute()
}
