package mcpserver

// AssetFormatContract describes the catalog records LLM consumers read and
// create.
const AssetFormatContract = `# brandvault Record Format

## Brand assets

Every asset has ` + "`id`, `type`, `brand`, `name`" + `, an optional ` + "`description`" + `,
a list of ` + "`tags`" + ` and an optional integer ` + "`order`" + ` (lower first; assets
without an order come last, ties broken by id).

| type           | carries a file | type-specific fields                           |
|----------------|----------------|------------------------------------------------|
| ` + "`logo`" + `         | yes            |                                                |
| ` + "`logo-version`" + ` | yes, plus a secondary file | ` + "`variant`, `secondaryUrl`" + `          |
| ` + "`color`" + `        | no             | ` + "`hex` (required, #RGB or #RRGGBB), `rgb`, `usage`, `category`" + ` |
| ` + "`font`" + `         | optional       | ` + "`fontFamily`, `fontUrl`, `weights`, `preview`" + ` |
| ` + "`icon`" + `         | yes            |                                                |
| ` + "`project-logo`" + ` | yes            |                                                |
| ` + "`menu-logo`" + `    | yes            |                                                |

Rules:

1. **The type of an asset never changes** after creation.
2. **Brand** defaults to the server's default brand when omitted. Brand
   matching is case-insensitive.
3. **Tags** match case-insensitively and ignore surrounding spaces; the
   original spelling is kept in the record.
4. File-backed assets expose ` + "`url`" + ` (and ` + "`format`" + `, e.g. ` + "`png`, `svg`" + `).

## Images

Compositing images have ` + "`id`, `filename`, `url`, `type`, `emotions`" + `,
an optional ` + "`category`" + ` and ` + "`uploadedBy`" + `, and ` + "`uploadedAt`" + `.

- ` + "`type`" + ` is ` + "`foreground`" + ` or ` + "`background`" + `.
- Foreground images need at least one emotion.
- Emotion queries match images carrying **any** of the requested emotions.
- Results are newest first.
- Accepted formats: png, jpeg, gif, webp, svg. Content is checked by magic
  bytes, not by extension. Imports are limited to 10 MB.

## Example

` + "```" + `json
{
  "id": "lilac-primary",
  "type": "color",
  "brand": "lilac",
  "name": "Lilac",
  "hex": "#C8A2C8",
  "usage": "Primary background",
  "tags": ["primary", "light"],
  "order": 1
}
` + "```" + `
`
