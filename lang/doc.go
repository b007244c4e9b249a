// Package lang implements nim, a small scripting language embedded in HTML
// comments. Rendering a document executes each code region and splices the
// text it emits back between the surrounding literal markup.
//
// # Documents
//
// Code regions are delimited by "<!--{" and "}-->":
//
//	<p>Hi</p><!--{ print("World"); }--><p>Bye</p>
//
// renders as
//
//	<p>Hi</p>World<p>Bye</p>
//
// Only emitted text is spliced into the output; the value of a region is
// discarded. Every render starts from a fresh [Environment], shared by all
// regions of that document.
//
// # Pipeline
//
// Each region passes through four stages:
//
//   - [Scan] produces a flat token stream with absolute byte offsets.
//   - [Structure] folds balanced braces into Block tokens and balanced
//     parentheses into Group tokens.
//   - [Split] partitions each level into statements on ";" and tags every
//     Block with the [Slot] its production assigns it.
//   - [Eval] walks the statements, dispatching on the leading token.
//
// [Compile] runs the first three stages over a whole document; the result
// is an immutable [Document] that [Engine] caches and renders.
//
// # Grammar
//
// Informal EBNF:
//
//	Statement  → Call | Assign | Operand | If | ElseIf | Else | Def | For | While
//	Call       → name"()" Value* | name"(" Args ")"
//	Assign     → "$"name "=" (Call | Operand | Assign)
//	Operand    → Value (Op Value)?
//	Value      → Number | String | Bool | "$"name | Block | "(" Args ")"
//	If         → "if" (Call | Operand) Block
//	ElseIf     → "elseif" (Call | Operand) Block
//	Else       → "else" Block
//	Def        → "def" String "$"name* Block
//	For        → "for" Block Block Block Block
//	While      → "while" Block Block
//	Block      → "{" (Statement? ";")* "}"
//	Args       → Statement ("," Statement)*
//	Op         → "+" | "-" | "*" | "/" | "%" | "%/" | "==" | ">" | ">=" | "<" | "<="
//
// A call written as name() takes the following tokens of its statement as
// arguments. A parenthesized argument list evaluates each expression and
// passes its value in the same position, so these are equivalent:
//
//	print() $x;
//	print($x);
//
// A Block outside a control-flow slot is a grouped expression whose value
// is the value of its last statement. Statements led by a control keyword
// end after their final Block without a terminator when another keyword or
// the end of the region follows.
//
// # Functions
//
// def registers a function in the current environment. Each call clones
// the environment def ran in, as it is at the time of the call, binds the
// parameters in the clone, and evaluates the body there:
//
//	def "double" $n { $n + $n; };
//	print(double(5));
//
// The builtins are print (arity 1) and epoch (arity 0). Hosts add their own
// with [WithBuiltin].
//
// # Errors
//
// Every failure is a *[Error] that matches one of the sentinels
// ([ErrLex], [ErrStructure], [ErrReference], ...) under [errors.Is] and
// carries the document identifier and byte offset. [Report] formats it
// with the offending source line.
package lang
