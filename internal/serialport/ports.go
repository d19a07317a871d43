package serialport

import (
	"fmt"
	"io"

	"codeberg.org/mutker/printerctl/internal/errors"
	"go.bug.st/serial/enumerator"
)

// Details describes an enumerated serial port.
type Details struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// Criteria selects ports by exact match on every non-empty field.
type Criteria struct {
	Name         string
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

func (c Criteria) IsEmpty() bool {
	return c == Criteria{}
}

func (c Criteria) Match(d Details) bool {
	if c.Name != "" && c.Name != d.Name {
		return false
	}
	if c.VID != "" && c.VID != d.VID {
		return false
	}
	if c.PID != "" && c.PID != d.PID {
		return false
	}
	if c.SerialNumber != "" && c.SerialNumber != d.SerialNumber {
		return false
	}
	if c.Product != "" && c.Product != d.Product {
		return false
	}

	return true
}

func (c Criteria) String() string {
	return fmt.Sprintf("name=%q vid=%q pid=%q serial=%q product=%q",
		c.Name, c.VID, c.PID, c.SerialNumber, c.Product)
}

// List enumerates the available serial ports with their USB attributes.
func List() ([]Details, error) {
	errFactory := errors.New()

	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, errFactory.Wrap(ErrEnumFailed, err)
	}

	details := make([]Details, 0, len(ports))
	for _, p := range ports {
		details = append(details, Details{
			Name:         p.Name,
			IsUSB:        p.IsUSB,
			VID:          p.VID,
			PID:          p.PID,
			SerialNumber: p.SerialNumber,
			Product:      p.Product,
		})
	}

	return details, nil
}

// Filter returns the ports matching the criteria, in enumeration order.
func Filter(ports []Details, criteria Criteria) []Details {
	var matched []Details
	for _, p := range ports {
		if criteria.Match(p) {
			matched = append(matched, p)
		}
	}

	return matched
}

// Select returns the name of the single port matching the criteria. Zero
// matches fail with ErrPortNotFound, more than one with ErrPortAmbiguous.
func Select(ports []Details, criteria Criteria) (string, error) {
	errFactory := errors.New()

	matched := Filter(ports, criteria)
	switch len(matched) {
	case 1:
		return matched[0].Name, nil
	case 0:
		return "", errFactory.WithData(ErrPortNotFound, criteria.String())
	default:
		names := make([]string, 0, len(matched))
		for _, p := range matched {
			names = append(names, p.Name)
		}
		return "", errFactory.WithData(ErrPortAmbiguous, names)
	}
}

// Find enumerates the available ports and selects the single one matching
// the criteria.
func Find(criteria Criteria) (string, error) {
	ports, err := List()
	if err != nil {
		return "", err
	}

	return Select(ports, criteria)
}

// Dump writes a diagnostic description of a port's attributes.
func Dump(w io.Writer, d Details) {
	fmt.Fprintf(w, "%s:\n", d.Name)
	fmt.Fprintf(w, "  usb:           %t\n", d.IsUSB)
	fmt.Fprintf(w, "  vid:           %s\n", d.VID)
	fmt.Fprintf(w, "  pid:           %s\n", d.PID)
	fmt.Fprintf(w, "  serial number: %s\n", d.SerialNumber)
	fmt.Fprintf(w, "  product:       %s\n", d.Product)
}
