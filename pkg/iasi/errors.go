package iasi

import (
	"fmt"

	"github.com/samcharles93/natread/pkg/nat"
)

func sizeMismatch(schema string, consumed, have int) error {
	return fmt.Errorf("%w: %s decodes %d payload bytes, record carries %d",
		nat.ErrInvalidRecordSize, schema, consumed, have)
}

func unsupportedVersion(v uint8) string {
	return fmt.Sprintf("unsupported subclass version %d", v)
}

func tooSmall(size uint32) string {
	return fmt.Sprintf("implausible record size %d", size)
}
