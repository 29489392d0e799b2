package port

// FileWalker lists and reads local text files for ingestion.
type FileWalker interface {
	Walk(root string) ([]FileInfo, error)

	// Read returns the file contents, rejecting anything that is not UTF-8.
	Read(path string) (string, error)
}

type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}
