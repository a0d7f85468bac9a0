package sdkgen

// Templates only ever see pre-indented lines. Section tags share their line
// with content so the mustache standalone-line rules never strip anything.

const moduleHeaderTemplate = `"""
{{#Lines}}{{{.}}}
{{/Lines}}"""
`

const moduleImportsTemplate = `
from {{{Package}}} import {{{SessionClass}}} as _{{{SessionClass}}}
from {{{Package}}}.{{{ResponseModule}}} import {{{ResponseClass}}} as _{{{ResponseClass}}}
{{#Deprecated}}import deprecation
{{/Deprecated}}`

const functionTemplate = `

{{#Decorator}}{{{Decorator}}}
{{/Decorator}}def {{{Name}}}(
{{#Args}}{{{.}}}
{{/Args}}) -> _{{{ResponseClass}}}:
    """
{{#Doc}}{{{.}}}
{{/Doc}}    """
{{#Body}}{{{.}}}
{{/Body}}`

const indexTemplate = `
{{#Imports}}{{{.}}}
{{/Imports}}{{{Exports}}}`
