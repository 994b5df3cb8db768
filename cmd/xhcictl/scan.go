package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jaypipes/ghw"
	"github.com/jaypipes/pcidb"
	cli "github.com/urfave/cli/v2"

	"github.com/ardnew/softxhci/pkg"
)

// PCI class code of an xHCI function: serial bus controller, USB, xHCI.
const (
	classSerialBus = "0c"
	subclassUSB    = "03"
	progIfXHCI     = "30"
)

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "list xHCI host controllers on the PCI bus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "chroot",
				Value:   "/",
				EnvVars: []string{"XHCICTL_CHROOT"},
				Usage:   "root of the sysfs and pci.ids tree to read",
			},
		},
		Action: scan,
	}
}

// controllerInfo describes one xHCI PCI function.
type controllerInfo struct {
	Address string
	Vendor  string
	Product string
	BAR0    uint64
}

func scan(c *cli.Context) error {
	root := c.String("chroot")
	info, err := ghw.PCI(ghw.WithChroot(root))
	if err != nil {
		return fmt.Errorf("reading PCI bus: %w", err)
	}

	label := "xHCI"
	if db, err := pcidb.New(pcidb.WithChroot(root)); err != nil {
		pkg.LogWarn(pkg.ComponentTool, "pci.ids unavailable", "error", err)
	} else if name := progIfName(db, classSerialBus, subclassUSB, progIfXHCI); name != "" {
		label = name
	}

	found := findControllers(info.Devices, root)
	if len(found) == 0 {
		fmt.Fprintf(c.App.Writer, "no %s controllers found\n", label)
		return nil
	}
	for _, ctl := range found {
		fmt.Fprintf(c.App.Writer, "%s  %s  %s %s  bar0=%#x\n",
			ctl.Address, label, ctl.Vendor, ctl.Product, ctl.BAR0)
	}
	return nil
}

// findControllers filters devs to xHCI functions and reads their BAR0.
func findControllers(devs []*ghw.PCIDevice, root string) []controllerInfo {
	var out []controllerInfo
	for _, d := range devs {
		if !isXHCI(d) {
			continue
		}
		ctl := controllerInfo{Address: d.Address}
		if d.Vendor != nil {
			ctl.Vendor = d.Vendor.Name
		}
		if d.Product != nil {
			ctl.Product = d.Product.Name
		}
		bar, err := readBAR0(root, d.Address)
		if err != nil {
			pkg.LogWarn(pkg.ComponentTool, "BAR0 unreadable", "address", d.Address, "error", err)
		}
		ctl.BAR0 = bar
		out = append(out, ctl)
	}
	return out
}

func isXHCI(d *ghw.PCIDevice) bool {
	return d != nil &&
		d.Class != nil && d.Class.ID == classSerialBus &&
		d.Subclass != nil && d.Subclass.ID == subclassUSB &&
		d.ProgrammingInterface != nil && d.ProgrammingInterface.ID == progIfXHCI
}

// progIfName looks up a programming interface name in the PCI database.
func progIfName(db *pcidb.PCIDB, class, subclass, progIf string) string {
	cls, ok := db.Classes[class]
	if !ok {
		return ""
	}
	for _, sub := range cls.Subclasses {
		if sub.ID != subclass {
			continue
		}
		for _, pi := range sub.ProgrammingInterfaces {
			if pi.ID == progIf {
				return pi.Name
			}
		}
	}
	return ""
}

// readBAR0 returns the start address of the first resource of a PCI
// function, from <root>/sys/bus/pci/devices/<address>/resource.
func readBAR0(root, address string) (uint64, error) {
	f, err := os.Open(filepath.Join(root, "sys", "bus", "pci", "devices", address, "resource"))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	if !s.Scan() {
		if err := s.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%s: empty resource file", address)
	}
	fields := strings.Fields(s.Text())
	if len(fields) < 1 {
		return 0, fmt.Errorf("%s: malformed resource line %q", address, s.Text())
	}
	start, err := strconv.ParseUint(fields[0], 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", address, err)
	}
	return start, nil
}
