//go:build sd && cgo

package sdruntime

/*
#cgo LDFLAGS: -lstable-diffusion
#include <stdlib.h>
#include <stable-diffusion.h>
*/
import "C"

import (
	"fmt"
	"image"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"
)

const runtimeAvailable = true

var (
	sdContextCounter uint64
	contextMap       sync.Map // uint64 -> *C.sd_ctx_t
)

func loadModelImpl(modelPath string, opts LoadOptions) (*SDContext, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
	} else if err != nil {
		return nil, fmt.Errorf("%w: unable to access %s: %v", ErrModelLoadFailed, modelPath, err)
	}

	cModelPath := C.CString(modelPath)
	defer C.free(unsafe.Pointer(cModelPath))

	var p C.sd_ctx_params_t
	C.sd_ctx_params_init(&p)
	p.model_path = cModelPath
	p.vae_decode_only = C.bool(false)
	p.free_params_immediately = C.bool(false)
	if opts.Threads > 0 {
		p.n_threads = C.int(opts.Threads)
	}
	switch opts.Plan.Precision {
	case PrecisionFP16:
		p.wtype = C.SD_TYPE_F16
	case PrecisionFP32:
		p.wtype = C.SD_TYPE_F32
	}
	if opts.Plan.Device == DeviceCPU {
		p.keep_clip_on_cpu = C.bool(true)
		p.keep_vae_on_cpu = C.bool(true)
	}
	p.diffusion_flash_attn = C.bool(opts.Plan.AttentionSlicing)

	cCtx := C.new_sd_ctx(&p)
	if cCtx == nil {
		return nil, fmt.Errorf("%w: runtime returned no context for %s", ErrModelLoadFailed, modelPath)
	}

	id := atomic.AddUint64(&sdContextCounter, 1)
	contextMap.Store(id, cCtx)
	return &SDContext{id: id, modelPath: modelPath, valid: true}, nil
}

func img2imgImpl(ctx *SDContext, params Img2ImgParams) (*image.RGBA, error) {
	if !ctx.IsValid() {
		return nil, fmt.Errorf("%w: context is nil or invalid", ErrGenerationFailed)
	}
	v, ok := contextMap.Load(ctx.id)
	if !ok {
		return nil, fmt.Errorf("%w: no C context for handle %d", ErrGenerationFailed, ctx.id)
	}
	cCtx := v.(*C.sd_ctx_t)

	cPrompt := C.CString(params.Prompt)
	defer C.free(unsafe.Pointer(cPrompt))
	cNegPrompt := C.CString(params.NegativePrompt)
	defer C.free(unsafe.Pointer(cNegPrompt))

	w, h := params.InitImage.Rect.Dx(), params.InitImage.Rect.Dy()
	packed := PackRGB(params.InitImage)
	cInit := C.CBytes(packed)
	defer C.free(cInit)

	var gp C.sd_img_gen_params_t
	C.sd_img_gen_params_init(&gp)
	gp.prompt = cPrompt
	gp.negative_prompt = cNegPrompt
	gp.init_image = C.sd_image_t{
		width:   C.uint32_t(w),
		height:  C.uint32_t(h),
		channel: 3,
		data:    (*C.uint8_t)(cInit),
	}
	gp.width = C.int(w)
	gp.height = C.int(h)
	gp.strength = C.float(params.Strength)
	gp.seed = C.int64_t(params.Seed)
	gp.batch_count = 1
	gp.sample_params.sample_steps = C.int(params.Steps)
	gp.sample_params.guidance.txt_cfg = C.float(params.GuidanceScale)

	out := C.generate_image(cCtx, &gp)
	if out == nil {
		return nil, fmt.Errorf("%w: runtime returned no image", ErrGenerationFailed)
	}
	defer C.free(unsafe.Pointer(out))
	if out.data == nil {
		return nil, fmt.Errorf("%w: runtime returned an empty image", ErrGenerationFailed)
	}
	defer C.free(unsafe.Pointer(out.data))

	ow, oh, ch := int(out.width), int(out.height), int(out.channel)
	pix := C.GoBytes(unsafe.Pointer(out.data), C.int(ow*oh*ch))
	img, err := UnpackImage(pix, ow, oh, ch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return img, nil
}

func freeContextImpl(ctx *SDContext) {
	if ctx == nil {
		return
	}
	if v, ok := contextMap.LoadAndDelete(ctx.id); ok {
		C.free_sd_ctx(v.(*C.sd_ctx_t))
	}
	ctx.valid = false
}

func getBackendInfoImpl() string {
	if info := C.sd_get_system_info(); info != nil {
		return C.GoString(info)
	}
	return "stable-diffusion.cpp"
}
