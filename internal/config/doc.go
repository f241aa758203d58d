// Package config provides configuration structures and utilities for httpreqs.
// It holds the options collected from CLI flags, the optional .httpreqs
// configuration file, and the XDG directories where reports are stored.
package config
