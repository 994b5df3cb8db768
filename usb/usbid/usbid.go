package usbid

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// DefaultPaths lists the standard locations of usb.ids.
var DefaultPaths = []string{
	"/usr/share/hwdata/usb.ids",
	"/var/lib/usbutils/usb.ids",
	"/usr/share/misc/usb.ids",
}

// ErrNotFound indicates none of the search paths held a database.
var ErrNotFound = errors.New("usb.ids not found")

// Database caches names parsed from usb.ids.
type Database struct {
	mu       sync.RWMutex
	paths    []string
	loaded   bool
	vendors  map[uint16]string
	products map[uint32]string // VID<<16 | PID
	classes  map[uint32]string // class<<16 | subclass<<8 | protocol, with 0xFF.. for wildcard levels
}

// New returns a database that searches DefaultPaths.
func New(paths ...string) *Database {
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	return &Database{
		paths:    paths,
		vendors:  make(map[uint16]string),
		products: make(map[uint32]string),
		classes:  make(map[uint32]string),
	}
}

// Load parses the first readable search path. Later calls return nil
// without re-reading once a load has succeeded.
func (db *Database) Load() error {
	db.mu.RLock()
	loaded := db.loaded
	db.mu.RUnlock()
	if loaded {
		return nil
	}
	for _, path := range db.paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		err = db.Parse(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}
	return ErrNotFound
}

// Parse reads a usb.ids stream into the database.
//
// Vendor lines are "vvvv  name" with product lines "\tpppp  name" under
// them. Class lines are "C cc  name" with subclass "\tss  name" and
// protocol "\t\tpp  name" lines under them. Other sections are skipped.
func (db *Database) Parse(r io.Reader) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	const (
		sectionNone = iota
		sectionVendor
		sectionClass
	)
	var (
		section  = sectionNone
		vid      uint16
		class    uint8
		subclass uint8
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}

		depth := 0
		for depth < len(line) && line[depth] == '\t' {
			depth++
		}
		body := line[depth:]

		switch {
		case depth == 0 && strings.HasPrefix(body, "C "):
			id, name, ok := field(body[2:], 2)
			if !ok {
				section = sectionNone
				continue
			}
			section, class = sectionClass, uint8(id)
			db.classes[classKey(class, 0xFF, 0xFF)] = name

		case depth == 0:
			id, name, ok := field(body, 4)
			if !ok {
				// Another top-level section (AT, HID, L, ...).
				section = sectionNone
				continue
			}
			section, vid = sectionVendor, uint16(id)
			db.vendors[vid] = name

		case section == sectionVendor && depth == 1:
			if id, name, ok := field(body, 4); ok {
				db.products[uint32(vid)<<16|uint32(id)] = name
			}

		case section == sectionClass && depth == 1:
			if id, name, ok := field(body, 2); ok {
				subclass = uint8(id)
				db.classes[classKey(class, subclass, 0xFF)] = name
			}

		case section == sectionClass && depth == 2:
			if id, name, ok := field(body, 2); ok {
				db.classes[classKey(class, subclass, uint8(id))] = name
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	db.loaded = true
	return nil
}

// field splits "hhhh  name" where the ID has width hex digits.
func field(s string, width int) (uint64, string, bool) {
	if len(s) < width+2 || s[width] != ' ' {
		return 0, "", false
	}
	id, err := strconv.ParseUint(s[:width], 16, width*4)
	if err != nil {
		return 0, "", false
	}
	return id, strings.TrimLeft(s[width:], " "), true
}

func classKey(class, subclass, protocol uint8) uint32 {
	return uint32(class)<<16 | uint32(subclass)<<8 | uint32(protocol)
}

// Loaded reports whether a database has been parsed.
func (db *Database) Loaded() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.loaded
}

// Vendor returns the vendor name for vid.
func (db *Database) Vendor(vid uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.vendors[vid]
}

// Product returns the product name for vid:pid.
func (db *Database) Product(vid, pid uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.products[uint32(vid)<<16|uint32(pid)]
}

// Class returns the most specific name known for an interface triple,
// falling back from protocol to subclass to class.
func (db *Database) Class(class, subclass, protocol uint8) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, k := range [...]uint32{
		classKey(class, subclass, protocol),
		classKey(class, subclass, 0xFF),
		classKey(class, 0xFF, 0xFF),
	} {
		if name, ok := db.classes[k]; ok {
			return name
		}
	}
	return ""
}

// Describe formats "vvvv:pppp Vendor Product", omitting unknown names.
func (db *Database) Describe(vid, pid uint16) string {
	s := fmt.Sprintf("%04x:%04x", vid, pid)
	if v := db.Vendor(vid); v != "" {
		s += " " + v
	}
	if p := db.Product(vid, pid); p != "" {
		s += " " + p
	}
	return s
}
