//go:build !linux

package input

import "errors"

func readQdiscs() ([]qdiscStat, error) {
	return nil, errors.New("qdisc statistics are only available on linux")
}

func platformProviders(Settings) []Provider {
	return nil
}
