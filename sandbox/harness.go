package sandbox

// File names inside an execution's scratch directory.
const (
	harnessFile = "harness.py"
	codeFile    = "user_code.py"
	inputFile   = "input.json"
	outputFile  = "output.json"
)

// DefaultCode is run when a node has no code.
const DefaultCode = "def process_data(input_data):\n    return input_data"

// harness loads the input, runs the user's process_data and writes the
// outcome to output.json. Stdout belongs to the user code and is never
// parsed. Values json cannot encode are written with str(); NaN and
// infinities fail the script with a ValueError.
const harness = `import json
import os
import sys
import traceback


def main():
    work = sys.argv[1]
    out_path = os.path.join(work, "output.json")

    def emit(payload):
        data = json.dumps(payload, default=str, allow_nan=False)
        tmp = out_path + ".tmp"
        with open(tmp, "w", encoding="utf-8") as f:
            f.write(data)
        os.replace(tmp, out_path)

    try:
        with open(os.path.join(work, "input.json"), encoding="utf-8") as f:
            input_data = json.load(f)
        with open(os.path.join(work, "user_code.py"), encoding="utf-8") as f:
            source = f.read()
        scope = {"__name__": "__flowrun__"}
        exec(compile(source, "user_code.py", "exec"), scope)
        fn = scope.get("process_data")
        if not callable(fn):
            emit({"ok": False, "type": "NameError", "error": "process_data is not defined"})
            return
        emit({"ok": True, "value": fn(input_data)})
    except BaseException as e:
        emit({"ok": False, "type": type(e).__name__, "error": str(e), "traceback": traceback.format_exc()})


if __name__ == "__main__":
    main()
`
