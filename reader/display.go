package main

import (
	"fmt"

	"github.com/TheWaffleCopter/proxmark3/pkg/hitags"
)

func printUID(uid uint32) {
	fmt.Printf("UID:  %08X\n", uid)
}

func printPages(results []hitags.PageResult) {
	for _, r := range results {
		if r.Reason != hitags.ReasonNone {
			fmt.Printf("Page[%2d]: -- -- -- --  (reason %d)\n", r.Page, r.Reason)
			continue
		}
		fmt.Printf("Page[%2d]: %02X %02X %02X %02X\n", r.Page, r.Data[0], r.Data[1], r.Data[2], r.Data[3])
	}
}
