package retained

import "strconv"

func itoa(packetID uint16) string {
	return strconv.Itoa(int(packetID))
}

func parsePacketID(s string) (uint16, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return uint16(n), nil
}
