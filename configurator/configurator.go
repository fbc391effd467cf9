package configurator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/akavel/polyclip-go"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/glog"
	"github.com/spf13/viper"

	. "github.com/MakerPnP/gerber-viewer/gerberbasetypes"
	"github.com/MakerPnP/gerber-viewer/regions"
	"github.com/MakerPnP/gerber-viewer/render"
	"github.com/MakerPnP/gerber-viewer/tessellate"
	"github.com/MakerPnP/gerber-viewer/transform"
	"github.com/MakerPnP/gerber-viewer/viewport"
)

const (
	CfgCommonPrintAperturesInfo string = "common.PrintAperturesInfo"
	CfgCommonPrintRegionsInfo   string = "common.PrintRegionsInfo"
	CfgCommonPrintStatistic     string = "common.PrintStatistic"

	CfgGeometryClosingTolerance string = "geometry.ClosingTolerance"
	CfgGeometryClosePolicy      string = "geometry.ClosePolicy"

	CfgTessellationMaxError       string = "tessellation.MaxError"
	CfgTessellationRadiusFraction string = "tessellation.RadiusFraction"
	CfgTessellationMinSegments    string = "tessellation.MinSegments"

	CfgLimitsMaxCommands string = "limits.MaxCommands"
	CfgLimitsMaxVertices string = "limits.MaxVertices"
	CfgLimitsMaxNesting  string = "limits.MaxNesting"

	CfgRenderWorkers string = "render.Workers"

	CfgViewportFlipY             string = "viewport.FlipY"
	CfgViewportZoomFactor        string = "viewport.ZoomFactor"
	CfgViewportUniqueShapeColors string = "viewport.UniqueShapeColors"

	CfgTransformRotation string = "transform.Rotation" // degrees
	CfgTransformMirrorX  string = "transform.MirrorX"
	CfgTransformMirrorY  string = "transform.MirrorY"
	CfgTransformScale    string = "transform.Scale"
	CfgTransformOriginX  string = "transform.OriginX"
	CfgTransformOriginY  string = "transform.OriginY"
	CfgTransformOffsetX  string = "transform.OffsetX"
	CfgTransformOffsetY  string = "transform.OffsetY"

	CfgTransformLegacyImageParameters string = "transform.LegacyImageParameters"
)

func SetDefaults(v *viper.Viper) {
	v.SetConfigName("config") // no need to include file extension
	v.AddConfigPath(".")      // set the path of your config file
	v.SetConfigType("toml")

	// diagnostic messages
	v.SetDefault(CfgCommonPrintAperturesInfo, false)
	v.SetDefault(CfgCommonPrintRegionsInfo, false)
	v.SetDefault(CfgCommonPrintStatistic, true)

	// 0 means one LSD of the coordinate format
	v.SetDefault(CfgGeometryClosingTolerance, 0.0)
	v.SetDefault(CfgGeometryClosePolicy, regions.ClosePolicyBridge.String())
	v.SetDefault(CfgTessellationMaxError, 0.0)
	v.SetDefault(CfgTessellationRadiusFraction, tessellate.DefaultRadiusFraction)
	v.SetDefault(CfgTessellationMinSegments, tessellate.DefaultMinSegments)

	//
	v.SetDefault(CfgLimitsMaxCommands, render.DefaultMaxCommands)
	v.SetDefault(CfgLimitsMaxVertices, render.DefaultMaxVertices)
	v.SetDefault(CfgLimitsMaxNesting, render.DefaultMaxNesting)
	v.SetDefault(CfgRenderWorkers, 1)

	//
	v.SetDefault(CfgViewportFlipY, true)
	v.SetDefault(CfgViewportZoomFactor, viewport.DefaultZoomFactor)
	v.SetDefault(CfgViewportUniqueShapeColors, false)

	//
	v.SetDefault(CfgTransformRotation, 0.0)
	v.SetDefault(CfgTransformMirrorX, false)
	v.SetDefault(CfgTransformMirrorY, false)
	v.SetDefault(CfgTransformScale, 1.0)
	v.SetDefault(CfgTransformOriginX, 0.0)
	v.SetDefault(CfgTransformOriginY, 0.0)
	v.SetDefault(CfgTransformOffsetX, 0.0)
	v.SetDefault(CfgTransformOffsetY, 0.0)
	// MI, SF, OF, IR and AS of the file are ignored unless enabled
	v.SetDefault(CfgTransformLegacyImageParameters, false)
}

// ProcessConfigFile reads the config file. A missing file is not an error,
// the defaults stay in effect.
func ProcessConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		glog.Infoln("configuration file not found, using defaults")
		return nil
	}
	return fmt.Errorf("configuration file error: %w", err)
}

func DiagnosticAllCfgPrint(v *viper.Viper) {
	keys := v.AllKeys()
	sort.Strings(keys)
	for _, key := range keys {
		glog.Infoln(key, ":", v.Get(key))
	}
}

func ClosePolicy(v *viper.Viper) (regions.ClosePolicy, error) {
	s := strings.ToLower(strings.TrimSpace(v.GetString(CfgGeometryClosePolicy)))
	switch s {
	case "", regions.ClosePolicyBridge.String():
		return regions.ClosePolicyBridge, nil
	case regions.ClosePolicyStrict.String():
		return regions.ClosePolicyStrict, nil
	}
	return regions.ClosePolicyBridge, fmt.Errorf("%s: unknown close policy %q", CfgGeometryClosePolicy, s)
}

// RenderTransform builds the layer placement from the transform.* keys
func RenderTransform(v *viper.Viper) transform.RenderTransform {
	rt := transform.NewRenderTransform()
	rt.Rotation = mgl64.DegToRad(v.GetFloat64(CfgTransformRotation))
	rt.Mirroring = MirrorFromFlags(v.GetBool(CfgTransformMirrorX), v.GetBool(CfgTransformMirrorY))
	if s := v.GetFloat64(CfgTransformScale); s != 0 {
		rt.Scale = s
	}
	rt.Origin = polyclip.Point{X: v.GetFloat64(CfgTransformOriginX), Y: v.GetFloat64(CfgTransformOriginY)}
	rt.Offset = polyclip.Point{X: v.GetFloat64(CfgTransformOffsetX), Y: v.GetFloat64(CfgTransformOffsetY)}
	return rt
}

// BuildOptions returns the options for render.Build
func BuildOptions(v *viper.Viper) (render.Options, error) {
	opts := render.DefaultOptions()
	policy, err := ClosePolicy(v)
	if err != nil {
		return opts, err
	}
	opts.ClosePolicy = policy
	opts.ClosingTolerance = v.GetFloat64(CfgGeometryClosingTolerance)
	opts.MaxError = v.GetFloat64(CfgTessellationMaxError)
	opts.RadiusFraction = v.GetFloat64(CfgTessellationRadiusFraction)
	opts.MinSegments = v.GetInt(CfgTessellationMinSegments)
	opts.MaxCommands = v.GetInt(CfgLimitsMaxCommands)
	opts.MaxVertices = v.GetInt(CfgLimitsMaxVertices)
	opts.MaxNesting = v.GetInt(CfgLimitsMaxNesting)
	opts.Workers = v.GetInt(CfgRenderWorkers)
	opts.PrintAperturesInfo = v.GetBool(CfgCommonPrintAperturesInfo)
	opts.PrintRegionsInfo = v.GetBool(CfgCommonPrintRegionsInfo)
	opts.PrintStatistic = v.GetBool(CfgCommonPrintStatistic)
	opts.LegacyImageParameters = v.GetBool(CfgTransformLegacyImageParameters)

	rt := RenderTransform(v)
	if rt != transform.NewRenderTransform() {
		opts.Transform = &rt
	}
	return opts, nil
}

// ViewportStyle returns the colouring of mapped primitives
func ViewportStyle(v *viper.Viper) viewport.Style {
	style := viewport.DefaultStyle()
	style.UniqueShapeColors = v.GetBool(CfgViewportUniqueShapeColors)
	return style
}

// FitViewport fits the layer bounds into a width x height screen area
func FitViewport(v *viper.Viper, bounds polyclip.Rectangle, width, height float64) viewport.Viewport {
	zf := v.GetFloat64(CfgViewportZoomFactor)
	if zf <= 0 {
		zf = viewport.DefaultZoomFactor
	}
	return viewport.Fit(bounds, width, height, zf, v.GetBool(CfgViewportFlipY))
}
