/*

Process of translation

VM Text (one file per unit) ->
	parse ->
VM Commands (vm) ->
	back ->
Hack Assembly Text ->
	asm ->
Machine Code ->
	hack ->
Emulated Run

Units are translated independently and concatenated in input order.
Optional bootstrap goes first, the end loop goes last.

*/
package compiler
