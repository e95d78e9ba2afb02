/*
Package records reads rows from a SQL database into model records and
serializes them in the object layout used by Django's serializers, so that
output produced by a template can be loaded back by anything that understands
that layout.

	[{"model": "auth.user", "pk": 1, "fields": {"username": "tester"}}]

JSON, YAML, TOML and XML are supported. Values that are not records are
marshalled as-is for every format except XML.
*/
package records
