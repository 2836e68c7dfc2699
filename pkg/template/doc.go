// Package template implements the small template language used by feo.
//
// Output tags print an expression, optionally piped through filters:
//
//	<h1>Hello, {{ name | title }}!</h1>
//	<p>{{ bio | default("nothing yet") | truncate(80) }}</p>
//
// Statement tags control the flow:
//
//	{% if user.admin %}admin{% elif user %}member{% else %}guest{% endif %}
//
//	<ul>
//	{% for item in items %}
//	  <li>{{ loop.index }}. {{ item }}</li>
//	{% else %}
//	  <li>empty</li>
//	{% endfor %}
//	</ul>
//
//	{% set total = price * qty %}
//	{% include "footer.html" %}
//	{# comments are dropped #}
//
// Expressions are evaluated by expr-lang/expr, so they support and, or, not,
// comparisons, in, member access, indexing and ranges such as 1..3.
// Operands of and, or and not follow the truthiness rules of conditions, so
// {% if not items %} works for an empty list. Undefined names evaluate to nil
// and print as the empty string; member and index access on nil is nil too.
//
// Output is not escaped. Use the escape filter for untrusted values.
//
// A Set loads templates by name from an fs.FS at render time and caches them.
// Set.Watch clears that cache when files change on disk.
package template
