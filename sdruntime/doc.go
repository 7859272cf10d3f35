// Package sdruntime runs Stable Diffusion image-to-image locally through
// stable-diffusion.cpp.
//
// Build with cgo and the "sd" tag to link the real runtime; otherwise a stub
// is compiled in that loads nothing and reports ErrRuntimeUnavailable.
//
//	plan, _ := sdruntime.SelectDevice(sdruntime.DeviceAuto)
//	pool, err := sdruntime.NewContextPool(1, modelPath, sdruntime.LoadOptions{Plan: plan})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	out, err := pool.Img2Img(ctx, sdruntime.Img2ImgParams{
//	    InitImage:      src, // 512x512 *image.RGBA
//	    Prompt:         "oil painting style",
//	    NegativePrompt: sdruntime.NegativePrompt,
//	    Strength:       0.7,
//	    GuidanceScale:  7.5,
//	    Steps:          20,
//	    Seed:           -1,
//	})
//
// Device selection queries NVIDIA GPUs through NVML on linux cgo builds. A GPU
// loads weights as fp16 with memory-saving attention; the CPU uses fp32.
//
// Strength and guidance are passed to the runtime unchanged. RangeWarnings
// reports values outside their nominal range so callers can log them.
package sdruntime
