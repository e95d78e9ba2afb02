/*
Package templating extends html/template with comparison tests, hashing,
serialization and per-render variables, and loads templates written either in
Go template syntax or in the Django tag syntax translated by package syntax.

A TemplateManager owns the parsed template set. Every render clones the set
and binds a fresh scope, so {{set}} and {{del}} never leak between requests:

	tm, err := templating.NewTemplateManager(logger, nil, templating.Settings{"DEBUG": true}, "./templates")
	err = tm.ExecuteDjangoString(w, "{% if_less 1 2 %}y{% endif_less %}", nil)
	err = tm.ExecuteTemplateString(w, `{{if less 1 2}}y{{end}} {{sha1 "bar"}}`, nil)

Predicates never fail a render: values that cannot be compared yield false.
*/
package templating
