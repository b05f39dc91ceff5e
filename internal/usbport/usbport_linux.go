package usbport

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pilebones/go-udev/crawler"
	"github.com/pilebones/go-udev/netlink"

	"ledmatrix/internal/faults"
)

var (
	sysClassTTY = "/sys/class/tty"
	devDir      = "/dev"
)

// Identify resolves the USB identity of a tty given as /dev/<name>, a bare
// name, or /sys/class/tty/<name>.
func Identify(path string) (ID, error) {
	name, err := ttyName(path)
	if err != nil {
		return ID{}, err
	}
	ueventPath := filepath.Join(sysClassTTY, name, "device", "uevent")
	file, err := os.Open(ueventPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ID{}, faults.Wrap(faults.ErrNotUSB, "identify port", fmt.Sprintf("port %q is not a USB device", path), nil)
		}
		return ID{}, faults.Wrap(faults.ErrUnknownPort, "identify port", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		value, ok := strings.CutPrefix(strings.TrimSpace(scanner.Text()), "PRODUCT=")
		if !ok {
			continue
		}
		id, err := parseProduct(value)
		if err != nil {
			return ID{}, faults.Wrap(faults.ErrUnknownPort, "identify port", path, err)
		}
		return id, nil
	}
	if err := scanner.Err(); err != nil {
		return ID{}, faults.Wrap(faults.ErrUnknownPort, "identify port", path, err)
	}
	return ID{}, faults.Wrap(faults.ErrNotUSB, "identify port", fmt.Sprintf("port %q is not a USB device", path), nil)
}

// List enumerates USB serial ports by crawling the tty devices present in
// sysfs. Non-USB ttys are skipped.
func List() ([]Port, error) {
	queue := make(chan crawler.Device)
	errs := make(chan error, 1)
	crawler.ExistingDevices(queue, errs, ttyMatcher())

	ports := collectPorts(queue, Identify)
	select {
	case err := <-errs:
		if len(ports) == 0 {
			return nil, fmt.Errorf("crawl tty devices: %w", err)
		}
	default:
	}
	return ports, nil
}

// ttyMatcher selects tty class devices that have a device node.
func ttyMatcher() netlink.Matcher {
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Env: map[string]string{
			"SUBSYSTEM": "^tty$",
			"DEVNAME":   ".",
		},
	})
	return rules
}

// collectPorts drains queue, keeping the devices identify recognises as USB.
func collectPorts(queue <-chan crawler.Device, identify func(string) (ID, error)) []Port {
	var ports []Port
	for dev := range queue {
		name := dev.Env["DEVNAME"]
		if name == "" {
			name = filepath.Base(dev.KObj)
		}
		id, err := identify(name)
		if err != nil {
			continue
		}
		ports = append(ports, Port{Path: filepath.Join(devDir, name), ID: id})
	}
	sortPorts(ports)
	return ports
}

func ttyName(path string) (string, error) {
	cleaned := filepath.Clean(strings.TrimSpace(path))
	if strings.HasPrefix(cleaned, devDir+"/") {
		// /dev/serial/by-id links resolve to the underlying tty.
		if resolved, err := filepath.EvalSymlinks(cleaned); err == nil {
			cleaned = resolved
		}
	}
	switch {
	case cleaned == "." || cleaned == "":
		return "", faults.Wrap(faults.ErrUnknownPort, "identify port", fmt.Sprintf("cannot determine port type for %q", path), nil)
	case strings.HasPrefix(cleaned, devDir+"/"), strings.HasPrefix(cleaned, sysClassTTY+"/"):
		return filepath.Base(cleaned), nil
	case !strings.Contains(cleaned, "/"):
		return cleaned, nil
	default:
		return "", faults.Wrap(faults.ErrUnknownPort, "identify port", fmt.Sprintf("cannot determine port type for %q", path), nil)
	}
}

// parseProduct decodes a uevent PRODUCT value: "vid/pid/bcdDevice" in hex.
func parseProduct(value string) (ID, error) {
	parts := strings.Split(value, "/")
	if len(parts) < 2 {
		return ID{}, fmt.Errorf("malformed PRODUCT %q", value)
	}
	vid, err := strconv.ParseUint(parts[0], 16, 16)
	if err != nil {
		return ID{}, fmt.Errorf("malformed vendor id %q: %w", parts[0], err)
	}
	pid, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return ID{}, fmt.Errorf("malformed product id %q: %w", parts[1], err)
	}
	return ID{VendorID: uint16(vid), ProductID: uint16(pid)}, nil
}
