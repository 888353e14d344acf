package bus

import (
	"packedit/internal/packedfile"
	"packedit/pkg/types"
)

// Command is a request for the backend owner. Commands are values; once
// posted they belong to the bus and must not be modified by the sender.
type Command interface {
	// Name identifies the command kind in logs
	Name() string
	// Target is the entry the command is about, nil when it has none
	Target() types.Path
	command()
}

// Fetch decodes the entry at Path. Responds with File.
type Fetch struct {
	Path types.Path
}

// Commit encodes File and replaces the entry at Path. Responds with Ack.
type Commit struct {
	Path types.Path
	File packedfile.DecodedFile
}

// List responds with Entries sorted by path
type List struct{}

// Import adds or replaces raw bytes at Path; the type is detected from the
// path. Responds with Ack.
type Import struct {
	Path types.Path
	Data []byte
}

// Delete removes the entry at Path. Responds with Ack.
type Delete struct {
	Path types.Path
}

// Extract writes entries below Dir on disk, every entry when Paths is empty.
// Responds with one Ack per written entry in Entries.
type Extract struct {
	Paths []types.Path
	Dir   string
}

func (Fetch) Name() string   { return "Fetch" }
func (Commit) Name() string  { return "Commit" }
func (List) Name() string    { return "List" }
func (Import) Name() string  { return "Import" }
func (Delete) Name() string  { return "Delete" }
func (Extract) Name() string { return "Extract" }

func (c Fetch) Target() types.Path  { return c.Path }
func (c Commit) Target() types.Path { return c.Path }
func (List) Target() types.Path     { return nil }
func (c Import) Target() types.Path { return c.Path }
func (c Delete) Target() types.Path { return c.Path }
func (Extract) Target() types.Path  { return nil }

func (Fetch) command()   {}
func (Commit) command()  {}
func (List) command()    {}
func (Import) command()  {}
func (Delete) command()  {}
func (Extract) command() {}

// Ack confirms a mutation of the archive
type Ack struct {
	Path types.Path
	Type types.PackedFileType
	Size int64
}

// Response is the single answer to one command. Err is set on failure and
// then the other fields are zero.
type Response struct {
	File    packedfile.DecodedFile
	Ack     *Ack
	Entries []types.EntryInfo
	Err     error
}

// Failed builds an error response
func Failed(err error) Response {
	return Response{Err: err}
}
