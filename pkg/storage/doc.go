// Package storage owns the files osintgram produces: report exports and
// downloaded media under <output>/<target>/.
//
// Every write goes to a temporary file in the same directory and is renamed
// over the destination once complete, so re-running an operation overwrites
// its previous export atomically.
//
//	m, err := storage.NewManager(filepath.Join("output", target))
//	path, err := m.WriteFile(target+"_followers.json", data)
package storage
