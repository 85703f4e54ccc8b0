package mcpserver

// DirectiveFormat describes the record file format that LLM consumers
// should follow when reading or editing companies and invoices.
const DirectiveFormat = `# Invoice Record Format

Records are plain text files inside a year directory:

- companies: ` + "`<year>/data/companies/<name>`" + `, name matches ` + "`[a-z0-9-]+`" + `
- invoices: ` + "`<year>/data/income/<YYYYMMDD>-<NNN>-<company>`" + `

The file name carries the invoice date, the sequence number within the
year and the company. It is never repeated inside the file.

## Directives

Each line is ` + "`Key: value`" + `. Keys start with an upper-case letter.
Dashes become underscores and keys are matched case-insensitively.
Lines starting with ` + "`#`" + ` are comments. A key with an empty value is a
placeholder and is ignored.

### Company

- ` + "`Name:`" + ` display name
- ` + "`Address:`" + ` one line of the postal address, repeatable
- ` + "`Number:`" + ` company registration number
- ` + "`Bank-Account:`" + ` bank account
- ` + "`Comment:`" + ` free text, repeatable

### Invoice

- ` + "`Item: <price>: <description>`" + ` one line item, repeatable; price is an integer
- ` + "`Due:`" + ` either ` + "`YYYY-MM-DD`" + ` or a day offset from the invoice date such as ` + "`30`" + `; defaults to 14 days
- ` + "`Paid:`" + ` payment date
- ` + "`Payment:`" + ` payment method
- ` + "`Note:`" + ` free text printed on the invoice, repeatable

## Example

` + "```" + `
# 20240102-001-acme
Item: 1200: Consulting, December
Item: 300: Travel
Due: 30
Note: Thank you for your business.
` + "```" + `

Deleting a record renames the file with a trailing ` + "`~`" + `; such files are
never listed.
`
