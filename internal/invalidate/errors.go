package invalidate

import "errors"

// ErrInconsistentManifest is the sentinel wrapped by every Inconsistency
// error named in spec.md §7: a saved file claims to be a schema file
// but its type tag says otherwise; a parse_kind dispatch hits a value
// outside the known set. (A file_id in the deleted sets never reaches
// project_parser_files: parseplan skips it without an error.) These
// are fatal: Engine.Run returns this error, and the caller must discard the mutated manifest and fall back to a
// full parse, exactly as it would on DeletedSpecialOverrideMacro.
var ErrInconsistentManifest = errors.New("invalidate: inconsistent manifest")
