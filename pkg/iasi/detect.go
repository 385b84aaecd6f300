package iasi

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samcharles93/natread/pkg/nat"
)

// ErrUnknownProduct is returned when no driver matches a product.
var ErrUnknownProduct = errors.New("iasi: unknown product")

// Detect picks the driver for a file from its main product header. Principal
// component products are also recognised by name, ahead of the processing
// level they share with level 1C. Its signature matches nat.Resolver.
func Detect(m *nat.MPHR, name string) (nat.Product, error) {
	base := strings.ToUpper(filepath.Base(name))
	if m != nil {
		switch strings.ToUpper(m.ProductType()) {
		case "PCS":
			return PC{}, nil
		case "PCR":
			return PC{Residuals: true}, nil
		case "SND":
			return L2{}, nil
		}
	}
	switch {
	case strings.Contains(base, "PCS"):
		return PC{}, nil
	case strings.Contains(base, "PCR"):
		return PC{Residuals: true}, nil
	}
	if m != nil {
		switch strings.ToUpper(m.ProcessingLevel()) {
		case "02":
			return L2{}, nil
		case "1C":
			return L1C{}, nil
		}
	}
	switch {
	case strings.Contains(base, "_1C_"):
		return L1C{}, nil
	case strings.Contains(base, "_SND_"):
		return L2{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, name)
}

// ByName returns a driver from a short name. An empty name or "auto" yields
// nil, leaving detection to the assembler.
func ByName(name string) (nat.Product, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return nil, nil
	case "l1c":
		return L1C{}, nil
	case "l2", "snd":
		return L2{}, nil
	case "pcs":
		return PC{}, nil
	case "pcr":
		return PC{Residuals: true}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProduct, name)
	}
}

// Options returns assembler options that use product when set and Detect
// otherwise.
func Options(product nat.Product) nat.Options {
	return nat.Options{Product: product, Resolve: Detect}
}
