package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func stubCores(t *testing.T, n int, err error) {
	t.Helper()
	orig := cpuCounts
	cpuCounts = func(bool) (int, error) { return n, err }
	t.Cleanup(func() { cpuCounts = orig })
}

func TestGetOptimalWorkerCount(t *testing.T) {
	testCases := []struct {
		name    string
		setting string
		cores   int
		err     error
		want    int
	}{
		{"Manual", "4", 64, nil, 4},
		{"Manual With Spaces", " 3 ", 64, nil, 3},
		{"Auto", "auto", 8, nil, 8},
		{"Auto Capped", "AUTO", 64, nil, 16},
		{"Zero Falls Back To Auto", "0", 6, nil, 6},
		{"Garbage Falls Back To Auto", "lots", 6, nil, 6},
		{"Core Detection Fails", "auto", 0, errors.New("no /proc"), 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stubCores(t, tc.cores, tc.err)
			assert.Equal(t, tc.want, GetOptimalWorkerCount(tc.setting))
		})
	}
}
