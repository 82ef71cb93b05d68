package mcpserver

// SceneFormatContract describes the YAML scene file the exporter reads.
const SceneFormatContract = `# Multiexporter Scene Format

A scene is one YAML document describing a vector document: its artboards and
its layer tree. Coordinates grow up and to the right, so every rectangle is
written as ` + "`" + `[left, top, right, bottom]` + "`" + ` with top > bottom.

## Structure

` + "```" + `yaml
width: 400             # document size
height: 200
active_artboard: 0     # index into artboards
artboards:
  - name: Cover        # artboard names select layers of the same name
    rect: [0, 200, 200, 0]
layers:                # front-most first
  - name: Logo
    visible: true      # OPTIONAL, default true
    selected: false    # OPTIONAL, has selected artwork
    items:             # front-most first
      - bounds: [20, 180, 380, 150]
        fill: "#ff0000"
    layers: []         # OPTIONAL sublayers, same shape
` + "```" + `

## Rules

1. **Artboard filter.** With artboards set to ` + "`" + `all` + "`" + `, only artboards that have a
   visible top-level layer of the same name are exported.
2. **Additional layers.** A visible top-level layer whose name starts with ` + "`" + `+` + "`" + ` is
   composited into every per-layer export and never exported on its own.
3. **Preferences layer.** The hidden top-level layer ` + "`" + `nyt_exporter_info` + "`" + ` holds one text
   item with the export preferences. Do not edit it by hand; use the
   ` + "`" + `set_preference` + "`" + ` tool.
4. **Items without bounds** (e.g. guides with ` + "`" + `guide: true` + "`" + `) do not contribute to a
   layer's bounds.
5. **Encoding** is UTF-8.
`
