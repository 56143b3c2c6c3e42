package testsupport

// WhisperStubScript imitates the whisper CLI: it writes a two-segment JSON
// transcript named after the input into --output_dir. When
// SCRIBE_STUB_ARGS_FILE is set the received arguments are recorded there,
// one per line. An input whose name contains "corrupt" makes it fail.
const WhisperStubScript = `#!/bin/sh
if [ -n "$SCRIBE_STUB_ARGS_FILE" ]; then
  printf '%s\n' "$@" > "$SCRIBE_STUB_ARGS_FILE"
fi
input="$1"
shift
out="."
while [ $# -gt 0 ]; do
  if [ "$1" = "--output_dir" ]; then
    out="$2"
  fi
  shift
done
case "$input" in
  *corrupt*)
    echo "failed to decode audio" >&2
    exit 1
    ;;
esac
base=$(basename "$input")
stem="${base%.*}"
cat > "$out/$stem.json" <<'JSON'
{"text": " Hello there. General Kenobi.", "language": "en", "segments": [
  {"id": 0, "start": 0.0, "end": 1.5, "text": " Hello there."},
  {"id": 1, "start": 1.5, "end": 3.25, "text": " General Kenobi."}
]}
JSON
`

// TranslationHostStubScript imitates the translation host: it reports ready,
// then answers each request by wrapping the text in brackets. Text starting
// with "fail" produces an error reply.
const TranslationHostStubScript = `#!/bin/sh
echo '{"ready":true}'
while IFS= read -r line; do
  id=$(printf '%s' "$line" | sed -n 's/.*"id":\([0-9]*\).*/\1/p')
  text=$(printf '%s' "$line" | sed -n 's/.*"text":"\([^"]*\)".*/\1/p')
  case "$text" in
    fail*) printf '{"id":%s,"error":"model exploded"}\n' "$id" ;;
    *) printf '{"id":%s,"translation":"[%s]"}\n' "$id" "$text" ;;
  esac
done
`
