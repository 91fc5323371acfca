// Package config provides the application settings for jurisdata: where the
// discovery service lives, how the framer reads from it, where the link
// configuration document and the discovery history are stored, and which
// report format the CLI prints.
package config
