package uuid

import (
	"crypto/rand"
	"fmt"
)

// Gen generates a random version 4 UUID such as
// 'a3bb189e-8bf9-4888-9912-ace4e6543002'.
func Gen() string {
	var buf [16]byte
	rand.Read(buf[:])

	buf[6] = (buf[6] & 0x0f) | 0x40
	buf[8] = (buf[8] & 0x3f) | 0x80

	return fmt.Sprintf("%x-%x-%x-%x-%x", buf[0:4], buf[4:6], buf[6:8], buf[8:10], buf[10:])
}
