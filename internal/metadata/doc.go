// Package metadata defines the normalized acquisition-metadata schema every
// loader produces, and the OME-XML parsing and merge-precedence logic used
// to fill it in from whatever a given container format actually carries.
package metadata
