package client

import "strconv"

func portString(p int) string { return strconv.Itoa(p) }
