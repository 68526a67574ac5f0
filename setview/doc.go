// Package setview provides read-only views of scalar sets and the catalog
// that hands out stable handles for them.
//
// A Set borrows its values: for mapped files the slice aliases the mapping,
// so a Set must not be used after its Catalog is closed. Sets are immutable
// and safe for concurrent reads without locking.
//
//	cat := setview.NewCatalog[int32]()
//	defer cat.Close()
//
//	handles, err := cat.OpenFile("i32_1000_sets_with_100_values.bin", setview.WithVerify())
//	s, _ := cat.Set(handles[0])
//	_ = s.Contains(42)
package setview
