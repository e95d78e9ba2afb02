/*
Package syntax translates template source written in Django's tag syntax into
Go template text that html/template can parse.

Only tags that have been registered with a Registry are understood, along with
the structural tags else, end<name> and load, and {# #} comments. Variables
such as {{ user.name|sha1 }} become calls to the "display" and "var" template
functions, so the resulting text must be parsed with a function map that
provides them (see the templating package).
*/
package syntax
