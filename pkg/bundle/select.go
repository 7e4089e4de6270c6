package bundle

// File is one stored plan file, already tagged with its deliverable key.
// Deliverable is empty for files outside any deliverable (thumbnails,
// compliance documents).
type File struct {
	Name        string
	FileType    string
	Deliverable string
	Location    string
	Size        int64
}

// Filter restricts a bundle to deliverable keys. Free keys are always allowed.
type Filter struct {
	Keys []string
	Free []string
}

func (f *Filter) allows(key string) bool {
	if key == "" {
		return false
	}
	for _, k := range f.Keys {
		if k == key {
			return true
		}
	}
	for _, k := range f.Free {
		if k == key {
			return true
		}
	}
	return false
}

// Select returns the files a redeemer receives. A nil filter means the whole
// plan, untagged files included.
func Select(files []File, filter *Filter) []File {
	if filter == nil {
		out := make([]File, len(files))
		copy(out, files)
		return out
	}

	var out []File
	for _, f := range files {
		if filter.allows(f.Deliverable) {
			out = append(out, f)
		}
	}
	return out
}
