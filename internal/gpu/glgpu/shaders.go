package glgpu

import "volrender/internal/gpu"

// GLSL sources for the four mode programs. The marching shaders mirror the
// software backend: slab-test entry/exit on the unit cube, front-to-back
// compositing with early termination, and gradient shading from central
// differences.

type shaderSource struct {
	vertex   string
	fragment string
}

var programSources = map[gpu.ProgramKind]shaderSource{
	gpu.ProgramVolume:  {cubeVertexShader, volumeFragmentShader},
	gpu.ProgramMIP:     {cubeVertexShader, mipFragmentShader},
	gpu.ProgramSurface: {surfaceVertexShader, surfaceFragmentShader},
	gpu.ProgramMPR:     {fullscreenVertexShader, mprFragmentShader},
}

// Shared ray setup for the marching programs. The cube's front faces seed
// the ray; the slab test recovers the full entry/exit interval so rays
// starting inside the cube still march correctly.
const marchCommon = `
uniform sampler3D volumeTex;
uniform sampler1D lutTex;
uniform vec3 cameraPos;
uniform float stepSize;
uniform int maxSteps;
uniform float windowWidth;
uniform float windowLevel;

float rawSample(vec3 p) {
    return texture(volumeTex, (p + 1.0) * 0.5).r;
}

float windowed(float v) {
    if (windowWidth <= 0.0) {
        return clamp(v, 0.0, 1.0);
    }
    return clamp((v - (windowLevel - windowWidth * 0.5)) / windowWidth, 0.0, 1.0);
}

// Entry/exit distances of a ray against the [-1,1] cube; y < x means miss.
vec2 cubeHit(vec3 ro, vec3 rd) {
    vec3 inv = 1.0 / rd;
    vec3 t0 = (vec3(-1.0) - ro) * inv;
    vec3 t1 = (vec3( 1.0) - ro) * inv;
    vec3 tmin = min(t0, t1);
    vec3 tmax = max(t0, t1);
    float near = max(max(tmin.x, tmin.y), tmin.z);
    float far = min(min(tmax.x, tmax.y), tmax.z);
    return vec2(max(near, 0.0), far);
}
`

const cubeVertexShader = `#version 410 core
layout(location = 0) in vec3 position;
layout(location = 1) in vec3 normal;

uniform mat4 view;
uniform mat4 proj;

out vec3 objPos;

void main() {
    objPos = position;
    gl_Position = proj * view * vec4(position, 1.0);
}
`

const volumeFragmentShader = `#version 410 core
in vec3 objPos;
out vec4 outColor;

uniform vec3 lightDir;
uniform float gradDelta;
` + marchCommon + `
vec3 gradientAt(vec3 p) {
    float d = gradDelta;
    return vec3(
        rawSample(p + vec3(d, 0, 0)) - rawSample(p - vec3(d, 0, 0)),
        rawSample(p + vec3(0, d, 0)) - rawSample(p - vec3(0, d, 0)),
        rawSample(p + vec3(0, 0, d)) - rawSample(p - vec3(0, 0, d)));
}

void main() {
    vec3 rd = normalize(objPos - cameraPos);
    vec2 hit = cubeHit(cameraPos, rd);
    if (hit.y <= hit.x) {
        discard;
    }

    vec3 accum = vec3(0.0);
    float alpha = 0.0;
    float t = hit.x;
    vec3 light = normalize(lightDir);

    for (int i = 0; i < maxSteps; i++) {
        if (t > hit.y || alpha >= 0.95) {
            break;
        }
        vec3 p = cameraPos + rd * t;
        float v = windowed(rawSample(p));
        vec4 s = texture(lutTex, v);

        if (s.a > 0.01) {
            vec3 g = gradientAt(p);
            float shade = 0.3;
            if (length(g) > 1e-6) {
                vec3 n = normalize(-g);
                shade += 0.7 * max(dot(n, light), 0.0);
            }
            float contrib = s.a * (1.0 - alpha);
            accum += s.rgb * shade * contrib;
            alpha += contrib;
        }
        t += stepSize;
    }

    if (alpha <= 0.0) {
        discard;
    }
    outColor = vec4(accum, alpha);
}
`

const mipFragmentShader = `#version 410 core
in vec3 objPos;
out vec4 outColor;
` + marchCommon + `
void main() {
    vec3 rd = normalize(objPos - cameraPos);
    vec2 hit = cubeHit(cameraPos, rd);
    if (hit.y <= hit.x) {
        discard;
    }

    float maxVal = 0.0;
    float t = hit.x;
    for (int i = 0; i < maxSteps; i++) {
        if (t > hit.y) {
            break;
        }
        vec3 p = cameraPos + rd * t;
        maxVal = max(maxVal, rawSample(p));
        t += stepSize;
    }

    vec4 s = texture(lutTex, windowed(maxVal));
    outColor = vec4(s.rgb, 1.0);
}
`

const surfaceVertexShader = `#version 410 core
layout(location = 0) in vec3 position;
layout(location = 1) in vec3 normal;

uniform mat4 view;
uniform mat4 proj;

out vec3 objPos;
out vec3 objNormal;

void main() {
    objPos = position;
    objNormal = normal;
    gl_Position = proj * view * vec4(position, 1.0);
}
`

const surfaceFragmentShader = `#version 410 core
in vec3 objPos;
in vec3 objNormal;
out vec4 outColor;

uniform vec3 cameraPos;
uniform vec3 lightDir;

const float kAmbient = 0.18;
const float kDiffuse = 0.72;
const float kSpecular = 0.40;
const float kShininess = 32.0;
const vec3 baseColor = vec3(0.86, 0.88, 0.92);

void main() {
    vec3 n = normalize(objNormal);
    vec3 viewDir = normalize(cameraPos - objPos);
    if (dot(n, viewDir) < 0.0) {
        n = -n;
    }
    vec3 light = normalize(lightDir);

    float shade = kAmbient + kDiffuse * max(dot(n, light), 0.0);
    vec3 half_ = normalize(light + viewDir);
    float spec = kSpecular * pow(max(dot(n, half_), 0.0), kShininess);

    outColor = vec4(baseColor * shade + vec3(spec), 1.0);
}
`

// Attribute-less fullscreen strip; plane coordinates come out in [-1,1].
const fullscreenVertexShader = `#version 410 core
out vec2 planeCoord;

void main() {
    vec2 corners[4] = vec2[4](
        vec2(-1.0, -1.0), vec2(1.0, -1.0), vec2(-1.0, 1.0), vec2(1.0, 1.0));
    planeCoord = corners[gl_VertexID];
    gl_Position = vec4(corners[gl_VertexID], 0.0, 1.0);
}
`

const mprFragmentShader = `#version 410 core
in vec2 planeCoord;
out vec4 outColor;

uniform sampler3D volumeTex;
uniform sampler1D lutTex;
uniform float windowWidth;
uniform float windowLevel;
uniform vec3 planeCenter;
uniform vec3 planeU;
uniform vec3 planeV;

void main() {
    vec3 pos = planeCenter + planeU * planeCoord.x + planeV * planeCoord.y;
    vec3 tc = (pos + 1.0) * 0.5;
    if (any(lessThan(tc, vec3(0.0))) || any(greaterThan(tc, vec3(1.0)))) {
        outColor = vec4(0.0, 0.0, 0.0, 1.0);
        return;
    }

    float v = texture(volumeTex, tc).r;
    if (windowWidth > 0.0) {
        v = clamp((v - (windowLevel - windowWidth * 0.5)) / windowWidth, 0.0, 1.0);
    }
    vec4 s = texture(lutTex, clamp(v, 0.0, 1.0));
    outColor = vec4(s.rgb, 1.0);
}
`
