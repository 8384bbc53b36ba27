package model

import "strconv"

// FragmentRequestKey identifies one unit of batchable server-side diff
// fragment rendering. A zero InterRevision or InterFileID means the key
// does not describe an interdiff. Revisions and file IDs are positive.
type FragmentRequestKey struct {
	Revision      int
	InterRevision int
	FileID        int
	InterFileID   int
}

// IsInterdiff reports whether the key describes an interdiff.
func (k FragmentRequestKey) IsInterdiff() bool {
	return k.InterRevision != 0 || k.InterFileID != 0
}

// String returns "<rev>[-<interRev>]:<fileId>[-<interFileId>]".
func (k FragmentRequestKey) String() string {
	return k.revisionPart() + ":" + k.filePart()
}

// CommentPath builds the diff comment path for the given first line:
// "/diff/<rev>[-<interRev>]/file/<fileId>[-<interFileId>]/line/<line>/comments/".
func (k FragmentRequestKey) CommentPath(line int) string {
	return "/diff/" + k.revisionPart() +
		"/file/" + k.filePart() +
		"/line/" + strconv.Itoa(line) + "/comments/"
}

func (k FragmentRequestKey) revisionPart() string {
	if k.InterRevision == 0 {
		return strconv.Itoa(k.Revision)
	}
	return strconv.Itoa(k.Revision) + "-" + strconv.Itoa(k.InterRevision)
}

func (k FragmentRequestKey) filePart() string {
	if k.InterFileID == 0 {
		return strconv.Itoa(k.FileID)
	}
	return strconv.Itoa(k.FileID) + "-" + strconv.Itoa(k.InterFileID)
}

// Fragment is a batch of server-rendered diff context snippets, one per
// comment, to be injected into the containers "<ContainerPrefix>_<commentID>".
type Fragment struct {
	Queue           string
	ContainerPrefix string
	CommentIDs      []string
	// Parts maps a comment ID to the markup for its container. A comment the
	// server rendered nothing for has no entry.
	Parts map[string]string
}

// ContainerID returns the container element ID for commentID.
func (f Fragment) ContainerID(commentID string) string {
	return f.ContainerPrefix + "_" + commentID
}

// ContainerIDs returns the container element IDs this fragment targets.
func (f Fragment) ContainerIDs() []string {
	ids := make([]string, 0, len(f.CommentIDs))
	for _, id := range f.CommentIDs {
		ids = append(ids, f.ContainerID(id))
	}
	return ids
}
