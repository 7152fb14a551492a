package transform

// Header is the preamble prepended to every transformed script. It binds the
// _KEYS/_ARGV aliases either to the arrays the host passed in (outer call:
// ARGV is empty or ends in a plain string) or to the call frame a caller
// pushed as the trailing element of ARGV. A consumed frame is removed right
// away: leaving it in place would keep a circular reference alive through
// the shared array, which the host's memory management does not tolerate.
const Header = "local _KEYS, _ARGV; " +
	"if #ARGV == 0 or type(ARGV[#ARGV]) == 'string' then " +
	"_KEYS = KEYS; " +
	"_ARGV = ARGV; " +
	"else " +
	"_KEYS = ARGV[#ARGV][1]; " +
	"_ARGV = ARGV[#ARGV][2]; " +
	"table.remove(ARGV); " +
	"end; "
