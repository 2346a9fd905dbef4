package memory

import (
	"sync/atomic"
)

var leakDetectorHasRun atomic.Bool

const freeAfterLeakDetectionMessage = "freeing memory after the leak detector has run; " +
	"release long-lived allocations before the deferred leak check fires"

// InitLeakDetection returns the shutdown check to defer in main:
//
//	defer memory.InitLeakDetection(false)()
//
// When the returned function runs, any block still live on the current
// backend is reported as a leak, one line per block. With failOnLeak the
// process aborts after the report.
func InitLeakDetection(failOnLeak bool) func() {
	return func() {
		if CheckLeaks() && failOnLeak {
			fatalf("memory: aborting on leaked memory blocks")
		}
	}
}

// CheckLeaks reports every live block of the current backend as a leak and
// returns whether there was anything to report. Frees happening after this
// point are themselves reported as suspect.
func CheckLeaks() bool {
	leakDetectorHasRun.Store(true)
	blocks := BlocksInUse()
	if blocks == 0 {
		return false
	}
	reportf("Error: Not freed memory blocks: %d, total unfree memory %f MB",
		blocks, float64(InUse())/1024/1024)
	PrintBlocks()
	return true
}

// PrintBlocks emits one report line per live block: site name, length and
// address. The lock-free backend keeps no block list and prints nothing.
func PrintBlocks() {
	Current().EnumerateBlocks(func(info BlockInfo) {
		reportf("%s len: %d - %#x", info.Site, info.Len, info.Addr)
	})
}
