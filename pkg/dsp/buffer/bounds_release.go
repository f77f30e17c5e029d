//go:build !sdrdebug

package buffer

const boundsChecked = false
