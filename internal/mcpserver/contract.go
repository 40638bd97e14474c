package mcpserver

// RecordFormatContract describes the provenance record that LLM consumers
// should follow when logging transformations or reading exports.
const RecordFormatContract = `# Provenance Record Format

Every file known to provtrack has exactly one provenance record, keyed by its
location.

## Fields

| field | kind | notes |
|---|---|---|
| ` + "`location`" + ` | string | absolute path or URL; the unique key |
| ` + "`transformation`" + ` | string | name of the operation that produced the file |
| ` + "`parents`" + ` | list of strings | locations of the input files, in order |
| ` + "`acquired`" + ` | timestamp | inherited from the first parent that has it |
| ` + "`subject`" + ` | string | inherited from the first parent that has it |
| ` + "`protocol`" + ` | string | inherited from the first parent that has it |
| ` + "`created`" + ` | timestamp | file modification time at inspection |
| ` + "`added`" + ` | timestamp | when the record was first stored |
| ` + "`duration`" + ` | seconds | recording length, where the format knows it |
| ` + "`modality`" + `, ` + "`dimensions`" + `, ` + "`sampling-frequency`" + ` | any | format-specific |
| ` + "`size`" + ` | integer | bytes |
| ` + "`hash`" + ` | string | MD5 hex digest |
| ` + "`transient`" + ` | boolean | file may be gone; it was never inspected |
| ` + "`code`" + `, ` + "`logtext`" + `, ` + "`script`" + ` | string | what ran and what it printed |

## Rules

1. **Parents must be known.** Add source files first (` + "`add_file`" + `), then log
   each transformation with the files it read as parents.
2. **Files must exist** unless the call is transient.
3. **Timestamps** are RFC 3339 strings in JSON exports.
4. **Durations** are floating-point seconds in JSON exports.
5. A record logged again for the same location **replaces** the earlier one.
`
