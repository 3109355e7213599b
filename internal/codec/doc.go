// Delimiter choices across this package, collected in one place because
// they interact:
//
//   - ',' separates scalar encodings within an array (§6).
//   - ';' separates columns within a data frame and the three parts of a
//     schema. The schema is split off at the first '~' before the column
//     list is split on ';', so the two uses never meet in one split.
//     (PUT message payloads use '~', not ';', between key name and value;
//     see internal/messaging.)
//   - '~' separates a schema from its column list in a data frame, and
//     (this package's one extension past the literal §6 grammar) a
//     column's value list from its missing-bitstring. Both are resolved
//     by SplitN(s, "~", 2) against the *outermost* occurrence first, so a
//     data frame's schema/columns split happens before a column's own
//     values/missing-bits split is ever attempted — there is never a
//     reason to split more than two ways on '~' in one call.
//
// String cell values are rejected if they contain any of the three
// (EncodeString), so no value payload can ever be mistaken for a
// structural separator.
package codec
